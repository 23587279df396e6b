// Package resolve turns file names captured from tool output into resource
// identifiers.
//
// A FileResolver applies the matcher's file location rules: absolute names are
// used as is and relative names are joined onto the matcher's prefix after
// variables such as ${workspaceFolder} are expanded. The resulting path is
// normalized to forward slashes with a leading "/" and handed to a URIProvider,
// or converted to a file:// URI when none is configured.
//
// A LuaProvider is a URIProvider implemented by a sandboxed Lua script that
// defines a global resolve(path) function.
package resolve
