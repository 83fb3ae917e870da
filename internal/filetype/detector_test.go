package filetype

import "testing"

func TestDetectBytes(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"pdf magic bytes", []byte("%PDF-1.7\nsome body"), KindPDF},
		{"records array", []byte(`[{"text": "a", "page_no": 0}]`), KindRecords},
		{"records object", []byte(`{"text": "a"}`), KindRecords},
		{"json with leading whitespace", []byte("\n\t [1, 2, 3]"), KindRecords},
		{"png image", pngHeader, KindUnsupported},
		{"plain prose", []byte("quarterly results were strong"), KindUnsupported},
		{"empty", nil, KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := New().DetectBytes(tt.data)
			if info.Kind != tt.want {
				t.Errorf("DetectBytes() kind = %q (mime %q), want %q", info.Kind, info.MIMEType, tt.want)
			}
		})
	}
}
