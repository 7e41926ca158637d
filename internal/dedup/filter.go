package dedup

import "ideaminer/internal/domain"

// HashListing computes the fingerprint for a raw listing from its title and
// description.
func HashListing(l *domain.RawListing) string {
	return Fingerprint(l.Title, l.Description)
}

// FilterBatch removes within-batch duplicates from listings, keeping the
// first occurrence of each fingerprint. Listings without a content hash are
// hashed first. Returns the unique listings and the number removed.
func FilterBatch(listings []domain.RawListing) ([]domain.RawListing, int) {
	seen := make(map[string]struct{}, len(listings))
	unique := make([]domain.RawListing, 0, len(listings))

	for i := range listings {
		l := listings[i]
		if l.ContentHash == "" {
			l.ContentHash = HashListing(&l)
		}
		if _, ok := seen[l.ContentHash]; ok {
			continue
		}
		seen[l.ContentHash] = struct{}{}
		unique = append(unique, l)
	}

	return unique, len(listings) - len(unique)
}
