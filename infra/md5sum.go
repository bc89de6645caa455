package infra

import (
	"crypto/md5"
	"encoding/hex"
	"io"

	"github.com/cloudcopper/warpdrive/ports"
)

// Md5 matches checksum S3 returns as ETag of single part upload
type Md5 struct {
}

// Sum return checksum of given file or error
func (s *Md5) Sum(f ports.FS, fileName string) ([]byte, error) {
	file, err := f.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, err
	}

	return hash.Sum(nil), nil
}

// HexSum return lower case hex checksum of given file or error
func HexSum(algo ports.ChecksumAlgo, f ports.FS, fileName string) (string, error) {
	sum, err := algo.Sum(f, fileName)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}
