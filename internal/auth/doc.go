// Package auth supplies OAuth token sources for the calendar backends.
//
// Tokens come from one of three places: AZURE_ACCESS_TOKEN in the
// environment, a per-account JSON cache written by `meetfinder login`, or an
// mcp-oauth token store populated by the HTTP transport from forwarded
// bearer tokens. DeviceLogin implements the device authorization grant used
// by the login command.
package auth
