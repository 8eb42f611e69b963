// Package parser converts raw model output into structured actions.
//
// Model responses arrive as freeform text: pure JSON, JSON wrapped in
// markdown fences, JSON embedded in prose, or plain prose with no structure
// at all. Parse never fails; it walks a fallback chain from strict decoding
// down to keyword intent detection and finally degrades to a plain respond
// action carrying the raw text.
//
// The chain, in priority order:
//  1. Strict decode of the whole payload
//  2. Fenced code block contents
//  3. First balanced {...} substring (trailing commas tolerated)
//  4. Tool name mentioned in prose
//  5. Intent detection against the user's input
//  6. Respond with the raw text
//
// Intent detection is suppressed when the user input looks like a question,
// so conversational queries never spuriously trigger tools.
package parser
