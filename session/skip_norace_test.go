//go:build !race

package session

import "testing"

func skipRace(testing.TB) {}
