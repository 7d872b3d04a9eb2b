package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum_KnownVector(t *testing.T) {
	// sha256("hello world")
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Sum([]byte("hello world")))
}

func TestSum_Deterministic(t *testing.T) {
	content := []byte("CREATE TABLE documents (id SERIAL PRIMARY KEY);\n")
	assert.Equal(t, Sum(content), Sum(content))
	assert.Len(t, Sum(content), 64)
}

func TestSum_DistinguishesContent(t *testing.T) {
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
	assert.NotEqual(t, Sum([]byte("a\n")), Sum([]byte("a")))
}

func TestShort(t *testing.T) {
	hash := Sum([]byte("hello world"))
	assert.Equal(t, "b94d27b9934d3e08", Short(hash))
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "", Short(""))
}
