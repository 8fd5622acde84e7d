// Package pipeline runs one asset build pass: clean the output directory,
// generate sprites, bundle entries, copy static assets, compute the build
// hash, emit hashed files, write the manifest, render pages and check their
// references.
//
// Stages run in order and report through StageError; fatal and canceled
// errors abort the pass, warnings are recorded on the BuildReport.
package pipeline
