package core

// fingerprintEdgeSize bounds the prefix/suffix slices; long enough that two
// distinct tokens colliding on both edges and length is not a practical
// concern for change detection.
const fingerprintEdgeSize = 24

// Fingerprint is a cheap content-change detector for a raw credential:
// length plus fixed-size prefix and suffix slices, instead of hashing or
// full comparison.
type Fingerprint struct {
	Length int
	Prefix string
	Suffix string
}

func FingerprintOf(raw string) Fingerprint {
	fp := Fingerprint{Length: len(raw)}
	if len(raw) <= fingerprintEdgeSize*2 {
		fp.Prefix = raw
		return fp
	}
	fp.Prefix = raw[:fingerprintEdgeSize]
	fp.Suffix = raw[len(raw)-fingerprintEdgeSize:]
	return fp
}

func (f Fingerprint) Zero() bool {
	return f.Length == 0 && f.Prefix == "" && f.Suffix == ""
}

func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Length == other.Length && f.Prefix == other.Prefix && f.Suffix == other.Suffix
}
