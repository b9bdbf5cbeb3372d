package config

const (
	defaultDatabasePath       = "~/.local/share/dupecull/fingerprints.db"
	defaultLogDir             = "~/.local/share/dupecull/logs"
	defaultWorkDir            = "~/.local/share/dupecull/work"
	defaultTrashFolderName    = "trash"
	defaultHashAlgorithm      = "phash"
	defaultHashSize           = 8
	defaultHashWorkers        = 4
	defaultThreshold          = 10
	defaultSimilarityWorkers  = 8
	defaultRetryBudget        = 3
	defaultMinKeep            = 1
	defaultMaxBackups         = 5
	defaultSevenZipBinary     = "7z"
	defaultToolTimeoutSeconds = 120
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// defaultPreferKeywords marks releases that should win their group when the
// keyword rule runs with keep_matching semantics.
var defaultPreferKeywords = []string{"uncensored", "decensored"}

// defaultDiscardKeywords marks releases that should lose their group.
var defaultDiscardKeywords = []string{"sample", "preview"}

// defaultFallbackBinaries are secondary extraction tools probed at known
// install locations after 7z and the built-in reader both fail.
var defaultFallbackBinaries = []string{
	"bz",
	"/usr/local/bin/bz",
	"/opt/bandizip/bz",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DatabasePath:    defaultDatabasePath,
			LogDir:          defaultLogDir,
			WorkDir:         defaultWorkDir,
			TrashFolderName: defaultTrashFolderName,
		},
		Hashing: Hashing{
			Algorithm: defaultHashAlgorithm,
			HashSize:  defaultHashSize,
			Workers:   defaultHashWorkers,
		},
		Similarity: Similarity{
			Threshold:   defaultThreshold,
			Workers:     defaultSimilarityWorkers,
			RetryBudget: defaultRetryBudget,
		},
		Pruning: Pruning{
			MinKeep:         defaultMinKeep,
			VersionRule:     true,
			PreferKeywords:  append([]string(nil), defaultPreferKeywords...),
			DiscardKeywords: append([]string(nil), defaultDiscardKeywords...),
		},
		Backup: Backup{
			Enabled:             true,
			ForceDelete:         false,
			MaxContainerBackups: defaultMaxBackups,
			SevenZipBinary:      defaultSevenZipBinary,
			FallbackBinaries:    append([]string(nil), defaultFallbackBinaries...),
			ToolTimeout:         defaultToolTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
