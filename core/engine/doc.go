// Package engine implements the greedy time-stepped assignment of cleaning
// tasks to crews.
//
// At each tick the engine releases crews whose task ended, collects the
// ready tasks, orders them by priority then deadline, and hands each one to
// the best scoring available crew whose slot does not collide with another
// cleaning of the same washroom. The loop is single threaded and runs in
// logical time only; crews are always visited in ascending id order so that
// score ties resolve the same way on every run.
package engine
