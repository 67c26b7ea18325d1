//go:build !race

package websocket

import "testing"

func skipRace(testing.TB) {}
