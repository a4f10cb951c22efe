// Package dispatch delivers due reminder tasks. A Dispatcher scan loads the
// tasks whose time has come, renders each one through the text-generation
// collaborator, sends it to the learner and marks it sent. A task that fails
// stays pending and is retried on a later scan.
package dispatch
