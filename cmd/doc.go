// Package cmd implements the command-line interface for meetfinder.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - login: Sign in with the device-code flow and cache the token
//   - availability: Print the common free/busy grid for a group
//   - book: Choose a start and end inside the free time and book or export it
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Flags fall back to MEETFINDER_* environment variables when they are not
// set explicitly. A .env file in the working directory is loaded first.
package cmd
