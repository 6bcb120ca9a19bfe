package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// botFile is executed before every other content file.
const botFile = "bot.lua"

// collector accumulates Lua definitions during file execution.
type collector struct {
	file       string
	bots       []rawBot
	encounters []rawEncounter
}

// Load executes every .lua file in dir, compiles the Bot{} and Encounter{}
// blocks into Content and validates them. The Lua VM is discarded after
// loading.
func Load(dir string) (*Content, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := newVM()
	defer L.Close()

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		coll.file = f
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	content, ve := compile(coll)
	content.Files = luaFiles
	validate(content, ve)
	content.Warnings = ve.Warnings
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return content, nil
}

// sortedLuaFiles puts bot.lua first and the rest in name order.
func sortedLuaFiles(files []string) []string {
	out := append([]string(nil), files...)
	sort.Slice(out, func(i, j int) bool {
		if (out[i] == botFile) != (out[j] == botFile) {
			return out[i] == botFile
		}
		return out[i] < out[j]
	})
	return out
}

func newVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	return L
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Content must not reseed; the engine owns randomness.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}
