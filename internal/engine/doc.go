// Package engine interprets playback scripts.
//
// The interpreter walks a script top to bottom, one line at a time, without
// building a syntax tree. Control flow is carried by two pieces of state
// owned by the Interpreter:
//
//   - the jump target, set by "jumpto <line>" or "jumpto <label>", which
//     suppresses every line until the target line or "coda <label>" is
//     reached;
//   - the branch state, a four-valued machine driven by if, elseif, else
//     and fi.
//
// Per-line dispatch order:
//
//  1. Blank lines and comments are skipped. A numeric jump target on such
//     a line is never reached.
//  2. A numeric jump target is cleared when its line is reached.
//  3. The leading keyword is validated. An unknown keyword is a SyntaxError
//     even inside a suppressed block.
//  4. Jump suppression. A "coda <label>" line clears a matching label target
//     and then runs.
//  5. Branch-state suppression.
//  6. The instruction handler.
//
// Branch states:
//
//	Normal            executing; if evaluates its condition
//	SeekingBranch     looking for a true elseif, or else
//	InMatchedBranch   executing the matched body
//	SeekingTerminator body already ran; skip to fi
//
// Nested if blocks are not supported. An if reached while a block is open is
// a SyntaxError.
//
// Execution is single-threaded and synchronous. The only blocking calls are
// catalog lookups and playback requests. Side effects already committed when
// an error occurs (variables set, tracks queued) are kept.
//
// Every run gets a time-sortable id and every traced event a logical
// sequence number from Clock. Events are handed to a Recorder;
// *store.Store is the durable one.
package engine
