// Package llm wraps an OpenAI-compatible chat completion API and the
// tolerant JSON decoding needed to consume model replies.
//
// Models are not contractually guaranteed to return pure JSON; DecodeLooseJSON
// implements the fallback ladder (fenced block, first balanced-brace span,
// whole text) callers rely on to keep a malformed reply from failing a run.
package llm
