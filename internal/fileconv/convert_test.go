package fileconv

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		filename string
		want     Result
	}{
		{
			name:     "supported passes through",
			mime:     "application/pdf",
			filename: "report.pdf",
			want:     Result{Filename: "report.pdf", MimeType: "application/pdf"},
		},
		{
			name:     "markdown relabeled as text",
			mime:     "text/markdown",
			filename: "notes.md",
			want:     Result{Filename: "notes.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "python source relabeled",
			mime:     "text/x-python",
			filename: "script.py",
			want:     Result{Filename: "script.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "missing mime resolved from extension",
			mime:     "",
			filename: "data.csv",
			want:     Result{Filename: "data.csv", MimeType: "text/csv"},
		},
		{
			name:     "missing mime with convertible extension",
			mime:     "",
			filename: "config.yaml",
			want:     Result{Filename: "config.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "unknown declared type falls back to extension",
			mime:     "application/x-custom",
			filename: "build.toml",
			want:     Result{Filename: "build.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "unknown text-like type degrades to plain text",
			mime:     "text/x-unknown-thing",
			filename: "weird.dat",
			want:     Result{Filename: "weird.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "octet-stream without extension degrades to plain text",
			mime:     "",
			filename: "blob",
			want:     Result{Filename: "blob.txt", MimeType: "text/plain", Converted: true},
		},
		{
			name:     "binary type forwarded unchanged",
			mime:     "image/png",
			filename: "photo.png",
			want:     Result{Filename: "photo.png", MimeType: "image/png"},
		},
		{
			name:     "legacy word doc relabeled",
			mime:     "application/msword",
			filename: "old.doc",
			want:     Result{Filename: "old.txt", MimeType: "text/plain", Converted: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.mime, tt.filename)
			if got != tt.want {
				t.Errorf("Normalize(%q, %q) = %+v, want %+v", tt.mime, tt.filename, got, tt.want)
			}
		})
	}
}

func TestMimeFromFilename(t *testing.T) {
	if got := MimeFromFilename("README.MD"); got != "text/markdown" {
		t.Errorf("extension match should be case-insensitive, got %q", got)
	}
	if got := MimeFromFilename("archive.tar.gz"); got != "" {
		t.Errorf("unknown extension should yield empty, got %q", got)
	}
}
