// Package model provides the data structures shared by the powerdag package and its options.
// It defines the summary of a node handed to DAG options and the interface those options implement.
package model
