// Package execution places option orders adaptively: limit orders walk from
// the mid price toward the far side of the spread across attempts, each
// attempt polls for a fill, and an optional market order is the final
// fallback. Not filling is a result, not an error.
package execution
