// Package harness runs elaboration scenarios as executable tests.
//
// A scenario loads a CUE design, runs a sequence of build, load and rebuild
// steps against a fresh in-memory graph, and checks the resulting graph.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: leaf_rebuild
//	description: "Changing LEAF re-elaborates only its modules"
//	design: hierarchy              # directory, relative to the scenario file
//	toplevels: [work.top]
//	threads: 1
//	indexing: true
//	steps:
//	  - build: true
//	    expect: { modules: 7 }
//	  - load: hierarchy/leaf_v2.cue  # replaces the units declared in the file
//	  - rebuild: [work.leaf(rtl)]
//	    expect: { affected: 6 }
//	assertions:
//	  - type: node_count
//	    toplevel: work.top
//	    count: 20
//	  - type: instantiators
//	    unit: work.leaf(rtl)
//	    expect: [WORK.MID(RTL)]
//
// # Assertion Types
//
//   - module_count: the number of modules in the graph
//   - node_count: structures below a toplevel, to an optional depth
//   - item_exists: a dotted item path below a toplevel resolves
//   - instantiators: the units instantiating a unit's architecture
//   - diagnostics: the number of diagnostics, optionally of one category
//   - instance_labels: indexed instance labels of a structure path
//   - signal_connections: indexed statements connected to a signal path
//
// # Deterministic Testing
//
// Run ids come from a fixed generator ("run-1", "run-2", ...) and every
// step is stamped with a logical sequence number, so RunWithGolden can
// compare the trace and the final module set against a golden file.
package harness
