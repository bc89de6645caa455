package adapters

import (
	"context"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cloudcopper/warpdrive/ports"
)

// ContentTypeResolver resolves asset content type by
// explicit extension map, then by system mime table,
// and finally by sniffing the file content.
type ContentTypeResolver struct {
	fs     ports.FS
	outDir string
	byExt  map[string]string
}

func NewContentTypeResolver(f ports.FS, outDir string, byExt map[string]string) *ContentTypeResolver {
	m := make(map[string]string, len(byExt))
	for ext, typ := range byExt {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m[ext] = typ
	}
	return &ContentTypeResolver{
		fs:     f,
		outDir: outDir,
		byExt:  m,
	}
}

// ContentType returns content type of file relative to the output directory
func (r *ContentTypeResolver) ContentType(_ context.Context, fileName string) (string, error) {
	ext := strings.ToLower(path.Ext(fileName))
	if typ, ok := r.byExt[ext]; ok {
		return typ, nil
	}
	if ext != "" {
		if typ := mime.TypeByExtension(ext); typ != "" {
			return typ, nil
		}
	}

	file, err := r.fs.Open(filepath.Join(r.outDir, filepath.FromSlash(fileName)))
	if err != nil {
		return "", err
	}
	defer file.Close()

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	return mt.String(), nil
}
