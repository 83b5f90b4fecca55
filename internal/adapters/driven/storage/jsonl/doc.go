// Package jsonl provides the line-delimited JSON store used for the
// intermediate crawl output and the optional scored side output.
//
// Each record is one JSON object followed by a newline, written with a
// single write call, so concurrent writers never interleave and a crash
// leaves at most one partial line at the end of the file. Readers stream
// the file one line at a time, skip malformed lines, and report a partial
// final line as a truncated tail rather than an error.
//
// A Reader tracks the byte offset after each consumed line; OpenAt resumes
// from such an offset.
package jsonl
