package store

// defaultTemplates seeds a freshly initialized store. The headings here are
// exactly the ones the structured writers and the context digest depend on
// (spec.md §4.7, §4.8); everything else is free-form prose for the agent to
// fill in.
var defaultTemplates = map[string]string{
	DocProductContext: `# Product Context

## Overview

(Describe what this project is and why it exists.)
`,
	DocActiveContext: `# Active Context

## Current Project State

(Describe what is true right now.)

## Ongoing Tasks

## Known Issues

## Next Steps

## Session Notes

## Tasks
`,
	DocProgress: `# Progress

## Update History
`,
	DocDecisionLog: `# Decision Log
`,
	DocSystemPatterns: `# System Patterns

(Describe recurring architectural and coding patterns used in this project.)
`,
}
