// Package textutil provides the title handling shared by history parsing,
// player launches, and metadata lookups.
//
// Player titles often carry an episode-count suffix such as
// "Frieren (28 episodes)". The helpers here strip or parse that suffix, repair
// titles where the space before the parenthetical went missing, and fold
// titles into a comparable form for matching against search results.
package textutil
