package ports

type ChecksumAlgo interface {
	// Shall return checksum of given file or error
	Sum(fs FS, fileName string) ([]byte, error)
}
