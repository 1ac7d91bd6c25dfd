package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hello", StripHTML("<b>hello</b>"))
	assert.Equal(t, "alert(1)", StripHTML("&lt;script&gt;alert(1)&lt;/script&gt;"))
	assert.Equal(t, "Tom & Jerry", StripHTML("Tom &amp; Jerry"))
}

func TestText(t *testing.T) {
	assert.Equal(t, "line one\nline two", Text("  <p>line one</p>\nline\x00 two "))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ana Maria", DisplayName("  Ana \n\t Maria ", 100))
	assert.Equal(t, "Ana", DisplayName("<img src=x>Ana", 100))
	assert.Equal(t, "João", DisplayName("João Silva", 4))
	assert.Equal(t, "", DisplayName("<br>", 100))
}
