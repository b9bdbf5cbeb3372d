// Package similarity clusters items into near-duplicate groups by evaluating
// a pairwise distance function and collecting connected components.
package similarity
