package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/matzehuels/atlaspack/pkg/atlas"
)

// CatalogDigest hashes everything about a catalog that can change a plan or
// its metadata: order, names, source paths, dimensions and pixels.
func CatalogDigest(c atlas.Catalog) string {
	h := sha256.New()
	var dims [8]byte
	for _, a := range c {
		io.WriteString(h, a.Name)
		h.Write([]byte{0})
		io.WriteString(h, a.Path)
		h.Write([]byte{0})
		binary.BigEndian.PutUint32(dims[:4], uint32(a.Width))
		binary.BigEndian.PutUint32(dims[4:], uint32(a.Height))
		h.Write(dims[:])
		h.Write(a.Pix)
	}
	return hex.EncodeToString(h.Sum(nil))
}
