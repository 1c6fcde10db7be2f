// Package resources provides read-only MCP resources: the effective
// scheduling configuration and the signed-in user's calendar profile.
package resources
