package generate

import (
	"context"
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// Lua runs a user script as the text source. The script defines a global
// function:
//
//	function generate(req)
//	  -- req.selection, req.instruction, req.context, req.prompt
//	  emit("partial ")          -- optional, streams a delta
//	  return "rest of the text" -- optional, string or list of strings
//	end
//
// Each call gets a fresh interpreter with only the base, table, string
// and math libraries opened.
type Lua struct {
	source string
	name   string
	opts   Options
}

// NewLua loads the script at path.
func NewLua(path string, opts Options) (*Lua, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lua script: %w", err)
	}
	return NewLuaString(path, string(data), opts), nil
}

// NewLuaString uses source directly; name is used in error messages.
func NewLuaString(name, source string, opts Options) *Lua {
	return &Lua{source: source, name: name, opts: opts}
}

var errStopped = errors.New("generation stopped")

func (l *Lua) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt, err := l.opts.Prompt.Render(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		if err := l.run(ctx, ch, req, prompt); err != nil && !errors.Is(err, errStopped) {
			send(ctx, ch, Chunk{Err: err})
		}
	}()
	return ch, nil
}

func (l *Lua) run(ctx context.Context, ch chan<- Chunk, req Request, prompt string) (err error) {
	L := newSandbox()
	defer L.Close()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	stopped := false
	L.SetGlobal("emit", L.NewFunction(func(L *lua.LState) int {
		text := L.CheckString(1)
		if text != "" && !send(ctx, ch, Chunk{Text: text}) {
			stopped = true
			L.RaiseError("%s", errStopped)
		}
		return 0
	}))

	if err := L.DoString(l.source); err != nil {
		return fmt.Errorf("load %s: %w", l.name, err)
	}

	fn := L.GetGlobal("generate")
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("%s: generate is not a function (got %s)", l.name, fn.Type())
	}

	arg := L.NewTable()
	arg.RawSetString("selection", lua.LString(req.Selection))
	arg.RawSetString("instruction", lua.LString(req.Instruction))
	arg.RawSetString("context", lua.LString(req.Context))
	arg.RawSetString("prompt", lua.LString(prompt))

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		if stopped || ctx.Err() != nil {
			return errStopped
		}
		return fmt.Errorf("%s: %w", l.name, err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		if v != "" && !send(ctx, ch, Chunk{Text: string(v)}) {
			return errStopped
		}
	case *lua.LTable:
		var sendErr error
		v.ForEach(func(_, val lua.LValue) {
			if sendErr != nil {
				return
			}
			s, ok := val.(lua.LString)
			if !ok {
				sendErr = fmt.Errorf("%s: generate returned a %s in its chunk list", l.name, val.Type())
				return
			}
			if s != "" && !send(ctx, ch, Chunk{Text: string(s)}) {
				sendErr = errStopped
			}
		})
		return sendErr
	case *lua.LNilType:
	default:
		return fmt.Errorf("%s: generate returned %s, want string or table", l.name, ret.Type())
	}
	return nil
}

func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
