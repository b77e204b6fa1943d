// Package heuristic recognizes known attack and noise patterns in SIEM
// records. A Catalog holds ordered rules loaded from YAML, Match evaluates
// one rule against one record, and Scanner walks a record stream,
// applying a per-rule emission cap and producing annotation Candidates.
//
// Stateful rules keep their correlation state in an explicit Context that
// the caller owns and threads through every match call.
package heuristic
