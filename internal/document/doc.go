// Package document implements the value model behind profile documents.
//
// A document is a tree of Values. Each Value is one of five variants:
// Object, Array, String, Integer or Boolean. Values are immutable; the
// update helpers return a new root that shares every untouched subtree
// with the previous one, so earlier snapshots stay valid.
//
// Nodes are addressed with a Path, a closed sequence of Key and Index
// segments:
//
//	p := document.NewPath(document.Key("sessions"), document.Index(0), document.Key("apn"))
//	doc, err := document.Set(doc, p, document.CreateObjects, document.String("internet"))
//
// Traversal is governed by a Policy. Missing object members may be created
// on the way down; missing array items never are.
package document
