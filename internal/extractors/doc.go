// Package extractors provides text extraction from supported file
// formats, dispatched by file extension. Each subpackage handles one
// format family; the registry picks the highest-priority extractor for
// a given extension.
package extractors
