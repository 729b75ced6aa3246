package source

type (
	// FileID uniquely identifies a source file within a FileSet.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

const (
	// FileVirtual marks a file added from memory (tests, stdin, generated units).
	FileVirtual FileFlags = 1 << iota
	// FileGenerated marks a synthetic unit produced by the generation engine.
	FileGenerated
	FileHadBOM
	FileNormalizedCRLF
)

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a human-readable position in a source file. Both fields are 1-based.
type LineCol struct {
	Line uint32
	Col  uint32
}
