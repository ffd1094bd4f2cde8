package e2e

import (
	"fmt"

	"github.com/hyperjump/shiori/internal/models"
)

// CorpusDocument is one document in the end-to-end corpus.
type CorpusDocument struct {
	Filename   string
	SourceType models.SourceType
	Content    string
}

// Corpus holds documents whose content is short enough to fit one chunk, so
// querying with a document's content must return that document first.
type Corpus struct {
	Documents []CorpusDocument
}

var topics = []struct {
	slug    string
	content string
}{
	{"python", "Python is a high-level programming language used for web development and data science."},
	{"kubernetes", "Kubernetes is an open-source container orchestration platform that automates deployment and scaling."},
	{"react", "React is a JavaScript library; hooks and components enable building user interfaces."},
	{"golang", "Go is a statically typed language; concurrency is achieved with goroutines and channels."},
	{"postgres", "PostgreSQL is an advanced relational database that supports JSON and full-text search."},
	{"docker", "Docker container images are portable across environments and easy to ship."},
	{"ml", "Machine learning algorithms learn patterns from data without explicit rules."},
	{"rest", "REST API endpoints use HTTP methods and status codes to expose resources."},
	{"redis", "Redis is an in-memory data store used for sessions and caching."},
	{"terraform", "Terraform manages cloud infrastructure declaratively as code."},
	{"grpc", "gRPC remote procedure calls use HTTP/2 and protocol buffers."},
	{"oauth", "OAuth 2.0 is an authorization framework enabling secure delegated access."},
	{"git", "Git is a distributed version control system that tracks changes in source code."},
	{"kafka", "Apache Kafka is a distributed event streaming platform for high throughput."},
	{"nginx", "Nginx is a web server and reverse proxy that balances load and serves static files."},
	{"indexing", "Database indexes speed up queries and are critical for large tables."},
	{"tls", "HTTPS encrypts web traffic and TLS certificates verify server identity."},
	{"caching", "Caching improves performance, but cache invalidation must be designed carefully."},
	{"semantic", "Semantic search uses meaning rather than keywords; embeddings capture context."},
	{"vectors", "Vector databases store embeddings and rank them by cosine similarity."},
	{"chunking", "Chunking splits long documents, and overlap between chunks preserves context."},
	{"rag", "Retrieval augmented generation grounds language models in indexed documents."},
	{"queues", "Message queues decouple producers and consumers so each side can scale."},
	{"ratelimit", "Rate limiting protects APIs and can be applied per user or globally."},
}

// BuildCorpus returns one document per topic, alternating between plain text
// and DOCX so both parsers feed the same index.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for i, tp := range topics {
		st := models.SourceTXT
		if i%2 == 1 {
			st = models.SourceDOCX
		}
		c.Documents = append(c.Documents, CorpusDocument{
			Filename:   fmt.Sprintf("%02d-%s.%s", i, tp.slug, st),
			SourceType: st,
			Content:    tp.content,
		})
	}
	return c
}
