//go:build !windows

package config

import "testing"

func TestFlatName(t *testing.T) {
	tests := map[string]string{
		"styles/site.css":     "styles_site.css",
		"/abs/path/theme.css": "abs_path_theme.css",
		"../up.css":           "up.css",
		"plain.css":           "plain.css",
		"":                    "_bad_file_name_",
		"./":                  "_bad_file_name_",
	}
	for in, want := range tests {
		if got := FlatName(in); got != want {
			t.Errorf("FlatName(%q) = %q, want %q", in, got, want)
		}
	}
}
