package dictionary

import "github.com/tchap/go-patricia/v2/patricia"

// deletionTrie masks entries of a base dictionary: a key present here
// is treated as removed regardless of what the base trie still says,
// letting TableBasedDictionary support user deletions without
// rewriting the (possibly read-only) system dictionary.
type deletionTrie struct {
	t *patricia.Trie
}

func newDeletionTrie() *deletionTrie {
	return &deletionTrie{t: patricia.NewTrie()}
}

// Delete marks key as deleted.
func (d *deletionTrie) Delete(key string) {
	d.t.Insert(patricia.Prefix(key), true)
}

// Undelete removes key's deletion mark, if any.
func (d *deletionTrie) Undelete(key string) bool {
	return d.t.Delete(patricia.Prefix(key))
}

// IsDeleted reports whether key is masked.
func (d *deletionTrie) IsDeleted(key string) bool {
	return d.t.Match(patricia.Prefix(key))
}

// VisitDeletedPrefix invokes visit for every deleted key with the
// given prefix.
func (d *deletionTrie) VisitDeletedPrefix(prefix string, visit func(key string)) {
	_ = d.t.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		visit(string(p))
		return nil
	})
}
