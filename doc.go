/*
Package ctxcache builds deterministic, versioned on-disk caches of text
documents and selects budget-bounded subsets of them for a query.

It is meant for assembling bounded context windows: build once from a corpus,
then answer many queries against the cache, each one returning the highest
ranked documents that fit a caller-supplied budget.

# Core Architecture

A cache is a flat directory:

	cache/
	├── manifest.json
	├── 0a1b2c3d4e5f6071.txt
	└── ...

Each document is named after its DocumentID, a 64-bit xxHash of the
document's path relative to the ingestion root. The manifest lists the
cache version tag and one entry per document, in ascending id order.

# Determinism

Building the same set of documents with the same BuildConfig always produces
byte-identical files at identical paths, whatever order the documents were
supplied in. Selecting with the same query and budget against the same cache
always produces the same result, in the same order. Scores are integers and
ties are broken by id, so ranking never depends on float rounding or on
goroutine scheduling.

# Basic Usage

Ingesting and building:

	id, err := ctxcache.AssignID("docs", "docs/guide/deploy.md")
	if err != nil {
	    log.Fatal(err)
	}
	doc, err := ctxcache.Ingest(id, "guide/deploy.md", raw, nil)
	if err != nil {
	    log.Fatal(err)
	}

	manifest, err := ctxcache.Build(ctxcache.DefaultBuildConfig(), []ctxcache.Document{doc}, ".ctxcache")
	if err != nil {
	    log.Fatal(err)
	}

Selecting:

	cache, err := ctxcache.Open(".ctxcache")
	if err != nil {
	    log.Fatal(err)
	}

	result, err := ctxcache.Select(ctx, cache, ctxcache.NewQuery("deploy"), 4096)
	if err != nil {
	    log.Fatal(err)
	}
	for _, d := range result.Documents {
	    fmt.Println(d.Source, d.Score, d.Cost)
	}

# Ranking and Budgets

Ranking goes through the Scorer interface; the default TermScorer counts
query terms in the content, weighting hits in the source path or title
higher. Budgets are measured by a CostModel; the default ByteCost charges the
content length in bytes, and TokenCost charges o200k_base tokens instead.

Packing is greedy over the ranking: a document that does not fit is skipped
and cheaper documents further down are still considered. A zero budget
selects nothing.

# Configuration Options

Builders, assigners and opened caches take functional options:

	b := ctxcache.NewBuilder(
	    cfg,
	    ctxcache.WithFs(afero.NewMemMapFs()),
	    ctxcache.WithAccumulateErrors(),
	)

Selectors take their own options:

	sel := ctxcache.NewSelector(
	    ctxcache.WithScorer(myScorer),
	    ctxcache.WithCostModel(tokenCost),
	)

# Error Handling

Every error matches one sentinel kind with errors.Is:

  - ErrOutputExists: the build target already exists
  - ErrDuplicateID: two documents share an id
  - ErrFilenameCollision: two ids derive the same content filename
  - ErrInvalidVersion: the version tag is not a semantic version
  - ErrSerialization: the manifest could not be encoded
  - ErrIO: a filesystem operation failed
  - ErrManifestParse: manifest bytes are malformed
  - ErrCacheIntegrity: content on disk disagrees with the manifest
  - ErrInvalidBudget: the budget is negative
  - ErrInvalidPath: a path is not inside its ingestion root
  - ErrIngest: content is not valid UTF-8

The one exception is Select with a done context, which returns ctx.Err()
unwrapped.

The offending id, filename or tag is available through *Error:

	var e *ctxcache.Error
	if errors.As(err, &e) {
	    fmt.Println(e.Subject)
	}

Structural checks run before anything is written, so a build rejected for a
duplicate id, a filename collision or a bad version tag leaves no directory
behind.
*/
package ctxcache
