package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		want     string
	}{
		{"plain", "rg.jpg", "documents/r1/u1/rg.jpg"},
		{"strips directories", "../../etc/passwd", "documents/r1/u1/passwd"},
		{"windows path", `C:\fotos\fachada.png`, "documents/r1/u1/fachada.png"},
		{"empty", "", "documents/r1/u1/document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ObjectKey("r1", "u1", tc.filename))
		})
	}
}

func TestMetadataSafe(t *testing.T) {
	assert.Equal(t, "fachada.png", metadataSafe("fachada.png"))
	assert.Equal(t, "comprovante_de_endere_o.pdf", metadataSafe("comprovante_de_endereço.pdf"))
	assert.Equal(t, "a_b", metadataSafe("a\nb"))
}
