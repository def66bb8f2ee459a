// Package hclgraph loads graph definitions written in HCL.
//
//	node "start" "begin" {}
//
//	node "delay" "wait" {
//	  title = "Wait a bit"
//	  ms    = 250
//	}
//
//	node "end" "done" {}
//
//	connection {
//	  from = "begin"          # port defaults to "output"
//	  to   = "wait.input"
//	}
//
//	connection {
//	  id   = "last-hop"
//	  from = "wait.output"
//	  to   = "done"
//	}
//
// The first label of a node block is its type, the second its id. Every
// attribute other than title becomes a node property. Ports come from the
// node registry. Files may reference nodes declared in other files of the
// same load.
package hclgraph
