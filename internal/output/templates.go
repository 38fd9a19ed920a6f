package output

// Fixed templates for the three artifact surfaces. Placeholders use
// {question_id} markers resolved by expand(); a template that still
// carries markers after substitution is returned raw instead of
// half-filled.

const summaryTemplate = `Generate a system specification for the following request: solve "{purpose}" so that "{goal}"; today the work is done as "{current_process}" and the main pain points are "{pain_points}"; about {stakeholder_count} people across {departments} run this {frequency}, currently using {current_tools}; integration requirements: {integrations}.`

// summaryPad tops up a summary that falls short of the length floor.
const summaryPad = ` Please produce a complete requirements document covering scope, constraints and success criteria.`

const documentTemplate = `# Requirements Hearing Summary

## Overview

{purpose}

Background: {background}

## Goals

{goal}

Priorities: {priorities}

## Current Process

{current_process}

Performed {frequency} by roughly {stakeholder_count} people in: {departments}.

Tools in use today: {current_tools}.

## Pain Points

{pain_points}

## Requirements

- Stakeholders: {stakeholder_count} ({departments})
- Frequency: {frequency}
- Existing tools: {current_tools}
- Integrations: {integrations}
- Target timeline: {deadline}

## Constraints

{constraints}

## Success Criteria

{success_criteria}

---
Generated at {generated_at}
`
