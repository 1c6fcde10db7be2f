// Package common holds helpers shared by the MCP tool packages: account
// resolution, argument parsing and the instrumentation wrapper applied to
// every handler.
package common
