package index

var (
	bMeta  = []byte("meta")  // slug -> metaBytes
	bAlias = []byte("alias") // old -> newSlug

	bIdxTag = []byte("idx_tag") // tag -> sub-bucket
	bIdxCat = []byte("idx_cat") // cat -> sub-bucket

	bIdxUpdated = []byte("idx_updated")
	bIdxCreated = []byte("idx_created")
)
