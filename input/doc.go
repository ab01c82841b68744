// Package input turns user answers into request parameters.
//
// ResolveURI fills the placeholders of a resource template, one prompt per
// placeholder occurrence, and CollectArguments asks for every property of a
// tool input schema. Both keep answers as raw strings; the only transform
// applied is percent-encoding of URI values.
package input
