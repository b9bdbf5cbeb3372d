package phash

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"dupecull/internal/services"
)

// Supported hash algorithms.
const (
	AlgorithmPerception = "phash"
	AlgorithmAverage    = "ahash"
	AlgorithmDifference = "dhash"
)

// Result carries the computed hash string together with the image dimensions
// observed while decoding.
type Result struct {
	Hash   string
	Width  int
	Height int
}

// Generator computes perceptual hashes for images. Hashes are emitted as the
// goimagehash string encoding, which embeds the algorithm kind, so values from
// different algorithms never compare equal.
type Generator struct {
	algorithm string
	hashSize  int
}

// NewGenerator builds a generator for the given algorithm and hash size. The
// size is the square edge length of the hash grid, so a size of 8 yields a
// 64-bit hash.
func NewGenerator(algorithm string, hashSize int) (*Generator, error) {
	switch algorithm {
	case AlgorithmPerception, AlgorithmAverage, AlgorithmDifference:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "phash", "new generator",
			fmt.Sprintf("unknown algorithm %q", algorithm), nil)
	}
	if hashSize < 8 || hashSize%8 != 0 {
		return nil, services.Wrap(services.ErrConfiguration, "phash", "new generator",
			fmt.Sprintf("hash size %d must be a positive multiple of 8", hashSize), nil)
	}
	return &Generator{algorithm: algorithm, hashSize: hashSize}, nil
}

// Algorithm returns the configured algorithm name.
func (g *Generator) Algorithm() string {
	return g.algorithm
}

// HashSize returns the configured hash grid edge length.
func (g *Generator) HashSize() int {
	return g.hashSize
}

// HashImage computes the hash of an already decoded image.
func (g *Generator) HashImage(img image.Image) (string, error) {
	var hash *goimagehash.ExtImageHash
	var err error
	switch g.algorithm {
	case AlgorithmAverage:
		hash, err = goimagehash.ExtAverageHash(img, g.hashSize, g.hashSize)
	case AlgorithmDifference:
		hash, err = goimagehash.ExtDifferenceHash(img, g.hashSize, g.hashSize)
	default:
		hash, err = goimagehash.ExtPerceptionHash(img, g.hashSize, g.hashSize)
	}
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "phash", "hash image", g.algorithm, err)
	}
	return hash.ToString(), nil
}

// HashReader decodes an image from r and hashes it. JPEG, PNG, GIF and WebP
// are decodable.
func (g *Generator) HashReader(r io.Reader) (Result, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "phash", "decode image", "", err)
	}
	hash, err := g.HashImage(img)
	if err != nil {
		return Result{}, err
	}
	bounds := img.Bounds()
	return Result{Hash: hash, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// HashFile opens and hashes the image at path.
func (g *Generator) HashFile(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "phash", "open image", path, err)
	}
	defer file.Close()
	return g.HashReader(file)
}

// Distance returns the Hamming distance between two hash strings produced by
// a Generator. Hashes of different kinds or sizes do not compare.
func Distance(a, b string) (int, error) {
	hashA, err := goimagehash.ExtImageHashFromString(a)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "phash", "parse hash", a, err)
	}
	hashB, err := goimagehash.ExtImageHashFromString(b)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "phash", "parse hash", b, err)
	}
	distance, err := hashA.Distance(hashB)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "phash", "compare hashes", "", err)
	}
	return distance, nil
}
