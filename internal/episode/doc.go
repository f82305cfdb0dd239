// Package episode holds episode-label arithmetic and turns a navigation action
// into a concrete player invocation.
//
// Labels are strings because the player uses them that way: "12", "13.5" and
// the occasional non-numeric special all occur. When an ordered episode list is
// known it is authoritative; otherwise labels are treated numerically.
//
// Continue mode is preferred because it lets the player pick the following
// episode itself. A plan therefore carries a seed line that the session runner
// writes into a private history file; when no seed can be derived the plan
// falls back to searching by title and passing the episode explicitly.
package episode
