package genotype

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Fingerprint hashes the exact gene values. Two chromosomes share a
// fingerprint only when their data vectors are bit-identical.
func Fingerprint(c Chromosome) string {
	h := sha1.New()
	var buf [8]byte
	for _, gene := range c.Data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(gene))
		_, _ = h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Diversity counts distinct fingerprints.
func Diversity(population []Chromosome) int {
	seen := make(map[string]struct{}, len(population))
	for _, c := range population {
		seen[Fingerprint(c)] = struct{}{}
	}
	return len(seen)
}
