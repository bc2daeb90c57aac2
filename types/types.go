package types

// Format describes one entry of the watch page format map.
// All fields are percent-decoded. A Format without URL is never produced.
type Format struct {
	Itag     string
	MimeType string
	Quality  string
	URL      string
	// Sig is a plaintext signature that can be appended as is.
	Sig string
	// S is a ciphered signature that must go through the player's decode function.
	S string
	// SigParam names the query parameter that carries the signature.
	// Empty means "signature".
	SigParam string
}

// Ciphered reports whether the format needs its signature deciphered.
func (f Format) Ciphered() bool {
	return f.Sig == "" && f.S != ""
}

// SignatureParam returns the query parameter used for the signature.
func (f Format) SignatureParam() string {
	if f.SigParam == "" {
		return "signature"
	}
	return f.SigParam
}

// FormatSummary is the display triple produced when listing formats.
type FormatSummary struct {
	Itag     string
	Quality  string
	MimeType string
}

// Target is a selected format with its fully resolved URL and the
// destination file name that still lacks an extension.
type Target struct {
	Format   Format
	URL      string
	FileName string
}

// VideoInfo describes a watch page after parsing.
type VideoInfo struct {
	ID      string
	Title   string
	Formats []Format
}
