// Package hcl is the declarative front end: it loads workflow files
// written in HCL and translates them into the subgraph builder API.
//
// A workflow file contains one workflow block plus variable, step, and
// set blocks:
//
//	workflow "fold" {
//	  condition     = !var.found_native
//	  max_iteration = 30
//	}
//
//	variable "checkpoint" {
//	  default = ""
//	}
//
//	step "exec" "md" {
//	  arguments {
//	    executable  = "gmx"
//	    input_files = { "-cpi" = var.checkpoint }
//	  }
//	}
//
//	set "checkpoint" {
//	  value = step.md.output.file["-cpo"]
//	}
//
// step and set blocks are translated in file order, because declaration
// order is the only dependency signal the step log carries. Argument
// expressions are translated structurally: literals, tuples, objects, and
// var.* / step.*.output.* traversals; other expression forms are not
// implemented.
package hcl
