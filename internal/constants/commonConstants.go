package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixStats CachePrefix = "STATS_"
)

// Lock names for jobs that must never overlap.
const (
	LockIngest = "linker:lock:ingest"
)
