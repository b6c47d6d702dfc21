package vm

import (
	"strconv"
	"strings"
)

// Display renders v the way the write built-in prints it.
func Display(v Value) string {
	var sb strings.Builder
	writeDisplay(&sb, v, 0)
	return sb.String()
}

// maxDisplayDepth bounds rendering of arrays that contain themselves.
const maxDisplayDepth = 16

func writeDisplay(sb *strings.Builder, v Value, depth int) {
	switch x := v.(type) {
	case nil:
		sb.WriteString("<nil>")
	case Long:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case Boolean:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case String:
		sb.WriteString(string(x))
	case *NullValue:
		sb.WriteString("NULL")
	case *BigNumber:
		sb.WriteString(x.v.String())
	case *Function:
		sb.WriteString(x.Name())
	case *Array:
		if depth >= maxDisplayDepth {
			sb.WriteString("[...]")
			return
		}
		sb.WriteByte('[')
		for i, e := range x.elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDisplay(sb, e, depth+1)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString("<unknown>")
	}
}

// Describe renders v with its kind, quoting strings. Used in fault messages.
func Describe(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case String:
		return "String " + strconv.Quote(string(x))
	case *NullValue:
		return "NULL"
	default:
		return x.Kind().String() + " " + Display(x)
	}
}
