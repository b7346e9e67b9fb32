// Package core defines the domain model for publish alert filtering.
//
// # Architecture Overview
//
// The core package provides:
//   - Event records as exported by MISP (events, attributes, objects, tags, creator org)
//   - The field path vocabulary and value extraction over events
//   - The typed rule tree (connectives and predicates) and its parser
//   - The setting access gate and the registry of valid user settings
//
// Evaluation of rule trees lives in package detect; persistence of settings
// and users lives in package storage.
//
// # Design Principles
//
//  1. Interfaces defined where used (consumer package), not where implemented
//  2. Rule documents are parsed once into a closed set of node types
//  3. Structural faults in stored rules never panic and never error at
//     evaluation time; strict validation happens on write
//  4. Typed errors with proper wrapping
package core
