// Package toolkit provides the built-in tools the agent ships with: shell
// execution, file operations, web search, user messaging and task
// scheduling.
//
// Every tool implements the tool.Tool interface and routes its operations
// through Execute using an "action" or "operation" parameter, mirroring the
// JSON protocol the model is prompted with. Result strings the model
// observes are produced in the protocol language; diagnostics go to the
// structured logger.
//
// Tools that touch the host (shell, file) consult a security.Guard in
// addition to the dispatcher's pre-screening, so a tool called directly
// still enforces the policy.
package toolkit
