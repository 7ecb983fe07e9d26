// Package lua runs command extensions written in Lua.
//
// It wraps gopher-lua with a sandbox and value conversion:
//   - State: a single Lua runtime guarded by a mutex, with a best-effort
//     execution timeout enforced through the state's context.
//   - Sandbox: removes functions that load code from disk or strings and
//     limits require to the preopened string, table and math modules.
//   - Bridge: converts values between Go and Lua.
//
// Example:
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoString(src, "upper.lua"); err != nil {
//	    return err
//	}
//	results, err := state.Call("prepare", lua.LString("inline"))
package lua
