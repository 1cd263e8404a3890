package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathTree(t *testing.T) {
	urls := []string{
		"https://clinic.example/",
		"https://clinic.example/about",
		"https://clinic.example/service/whitening",
		"https://clinic.example/service/implant/",
		"https://clinic.example/service",
		"https://clinic.example/access?from=top",
		"https://clinic.example/%E8%A8%BA%E7%99%82",
	}

	want := "clinic.example/\n" +
		"├── service/\n" +
		"│   ├── implant\n" +
		"│   └── whitening\n" +
		"├── about\n" +
		"├── access\n" +
		"└── 診療\n"
	assert.Equal(t, want, PathTree(urls))
}

func TestPathTree_NestedLastDirectory(t *testing.T) {
	urls := []string{
		"https://clinic.example/a/b",
		"https://clinic.example/z/x/1",
		"https://clinic.example/z/y",
	}

	want := "clinic.example/\n" +
		"├── a/\n" +
		"│   └── b\n" +
		"└── z/\n" +
		"    ├── x/\n" +
		"    │   └── 1\n" +
		"    └── y\n"
	assert.Equal(t, want, PathTree(urls))
}

func TestPathTree_MultipleHostsAndInvalid(t *testing.T) {
	urls := []string{
		"https://clinic.example/",
		"::not a url",
		"/relative",
		"https://blog.clinic.example/post",
	}

	want := "clinic.example/\n" +
		"blog.clinic.example/\n" +
		"└── post\n"
	assert.Equal(t, want, PathTree(urls))
	assert.Equal(t, "", PathTree(nil))
}
