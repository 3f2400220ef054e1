// Package stack runs the numbered run files generated by stackSentinel.py.
//
// Run files live in <process>/run_files and are named run_01_<name> through
// run_16_<name>. NewPlan orders them by step number and reports missing or
// unexpected files; Run executes the steps one after another with run.py,
// each logging to <run_files>/logs/log_runNN.log, and stops at the first failing
// step.
package stack
