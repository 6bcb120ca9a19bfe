package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/questbot/engine/progression"
)

// registerAPI registers the content constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Bot { join_window = 12, ... }
	L.SetGlobal("Bot", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.bots = append(coll.bots, rawBot{file: coll.file, table: tbl})
		return 0
	}))

	// Encounter "name" { ... }: curried, Encounter("name") returns a
	// function that takes the table.
	L.SetGlobal("Encounter", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		file := coll.file
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.encounters = append(coll.encounters, rawEncounter{name: name, file: file, table: tbl})
			return 0
		}))
		return 1
	}))
}

func registerHelpers(L *lua.LState) {
	// Seconds(n) and Minutes(n) both yield seconds, the unit of every
	// duration field.
	L.SetGlobal("Seconds", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckNumber(1))
		return 1
	}))
	L.SetGlobal("Minutes", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckNumber(1) * 60)
		return 1
	}))

	// Percent(20) == 0.2, for drop chances.
	L.SetGlobal("Percent", L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckNumber(1) / 100)
		return 1
	}))

	L.SetGlobal("LEVEL_CAP", lua.LNumber(progression.LevelCap))
}
