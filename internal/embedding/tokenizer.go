package embedding

import (
	"hash/fnv"
	"strings"
)

// BERT special tokens and the vocabulary size hashed word ids are folded into.
const (
	clsToken  = 101
	sepToken  = 102
	vocabSize = 30000

	defaultMaxTokens = 256
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// WordHashTokenizer maps each whitespace-separated word to a hashed vocabulary
// id. It stands in for a real WordPiece vocabulary when the model ships without one.
type WordHashTokenizer struct{}

// Tokenize returns [CLS] word... [SEP] padded with zeros to maxTokens.
func (WordHashTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	ids := []int64{clsToken}
	for _, word := range strings.Fields(text) {
		if len(ids) >= maxTokens-1 {
			break
		}
		ids = append(ids, int64(textHash(word)%vocabSize))
	}
	if len(ids) < maxTokens {
		ids = append(ids, sepToken)
	}
	for i, id := range ids {
		inputIDs[i] = id
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// textHash returns a deterministic non-negative hash of s.
func textHash(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}
