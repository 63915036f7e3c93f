package vdom

import "fmt"

// Textf creates a formatted text node.
func Textf(format string, args ...any) *TextNode {
	return Text(fmt.Sprintf(format, args...))
}

// If returns the node if condition is true, nil otherwise.
// Builders drop nil children.
func If(condition bool, node VNode) VNode {
	if condition {
		return node
	}
	return nil
}

// IfElse returns the first node if condition is true, the second otherwise.
func IfElse(condition bool, ifTrue, ifFalse VNode) VNode {
	if condition {
		return ifTrue
	}
	return ifFalse
}

// When is like If but with lazy evaluation.
// The function is only called if condition is true.
func When(condition bool, fn func() VNode) VNode {
	if condition {
		return fn()
	}
	return nil
}

// Range maps a slice to VNodes, skipping nil results.
func Range[T any](items []T, fn func(item T, index int) VNode) []VNode {
	result := make([]VNode, 0, len(items))
	for i, item := range items {
		if node := fn(item, i); node != nil {
			result = append(result, node)
		}
	}
	return result
}

// RangeKeyed maps a slice to keyed children. key must be unique per item;
// repeated keys still work but are not matched across renders.
func RangeKeyed[T any](items []T, key func(item T) string, fn func(item T, index int) VNode) []KeyedChild {
	result := make([]KeyedChild, 0, len(items))
	for i, item := range items {
		if node := fn(item, i); node != nil {
			result = append(result, K(key(item), node))
		}
	}
	return result
}

// Repeat creates n nodes using the given function.
func Repeat(n int, fn func(i int) VNode) []VNode {
	if n <= 0 {
		return nil
	}
	result := make([]VNode, 0, n)
	for i := 0; i < n; i++ {
		if node := fn(i); node != nil {
			result = append(result, node)
		}
	}
	return result
}
