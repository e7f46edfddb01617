package media

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	const mib = 1024 * 1024

	tests := []struct {
		description  string
		declaredType string
		size         int64
		want         Verdict
	}{
		{"Should accept a small png", "image/png", 2 * mib, Verdict{Accepted: true}},
		{"Should accept a jpeg", "image/jpeg", 1, Verdict{Accepted: true}},
		{"Should accept an empty mp4", "video/mp4", 0, Verdict{Accepted: true}},
		{"Should accept exactly the maximum size", "video/mp4", MaxFileSize, Verdict{Accepted: true}},
		{"Should reject one byte over the maximum", "image/png", MaxFileSize + 1, Verdict{Reason: ReasonTooLarge}},
		{"Should reject a 60MB video", "video/mp4", 60 * mib, Verdict{Reason: ReasonTooLarge}},
		{"Should reject gif", "image/gif", 10, Verdict{Reason: ReasonUnsupportedType}},
		{"Should reject webm", "video/webm", 10, Verdict{Reason: ReasonUnsupportedType}},
		{"Should reject an empty type", "", 10, Verdict{Reason: ReasonUnsupportedType}},
		{"Should be case sensitive on the type", "IMAGE/PNG", 10, Verdict{Reason: ReasonUnsupportedType}},
		{"Should report the type when both checks fail", "application/pdf", 60 * mib, Verdict{Reason: ReasonUnsupportedType}},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			got := Validate(tt.declaredType, tt.size)
			req.Equal(tt.want, got)
			req.Equal(got, Validate(tt.declaredType, tt.size))
		})
	}
}

func TestVerdict_Err(t *testing.T) {
	req := require.New(t)
	req.NoError(Verdict{Accepted: true}.Err())
	req.ErrorIs(Verdict{Reason: ReasonTooLarge}.Err(), ErrTooLarge)
	req.ErrorIs(Verdict{Reason: ReasonUnsupportedType}.Err(), ErrUnsupportedType)
}

func TestReason_Message(t *testing.T) {
	req := require.New(t)
	req.Equal("Invalid file type. Please upload JPG, PNG, or MP4.", ReasonUnsupportedType.Message())
	req.Equal("File is too large. Maximum size is 50MB.", ReasonTooLarge.Message())
	req.Empty(Reason("other").Message())
}

func TestValidateFile(t *testing.T) {
	req := require.New(t)
	req.True(ValidateFile(FromBytes("a.png", "image/png", []byte("x"))).Accepted)
	req.Equal(ReasonUnsupportedType, ValidateFile(FromBytes("a.txt", "text/plain", []byte("x"))).Reason)
}
