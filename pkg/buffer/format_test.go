package buffer

import "testing"

func render(format string, args ...interface{}) string {
	b := New(16)
	b.Printf(format, args...)
	return b.String()
}

func TestPrintfString(t *testing.T) {
	if got := render("%s", "hi"); got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestPrintfStringNil(t *testing.T) {
	if got := render("%s", nil); got != "(null)" {
		t.Errorf("got %q, want %q", got, "(null)")
	}
}

func TestPrintfStringNilPointer(t *testing.T) {
	var p *int
	if got := render("%s", p); got != "(null)" {
		t.Errorf("got %q, want %q", got, "(null)")
	}
}

func TestPrintfDecimal(t *testing.T) {
	if got := render("%d", -42); got != "-42" {
		t.Errorf("got %q, want %q", got, "-42")
	}
}

func TestPrintfUnsigned(t *testing.T) {
	if got := render("%u", uint(7)); got != "7" {
		t.Errorf("got %q, want %q", got, "7")
	}
}

func TestPrintfHexLowerUpper(t *testing.T) {
	if got := render("%x", 255); got != "ff" {
		t.Errorf("got %q, want %q", got, "ff")
	}
	if got := render("%X", 255); got != "FF" {
		t.Errorf("got %q, want %q", got, "FF")
	}
}

func TestPrintfHexAlternate(t *testing.T) {
	if got := render("%#x", 255); got != "0xff" {
		t.Errorf("got %q, want %q", got, "0xff")
	}
}

func TestPrintfOctal(t *testing.T) {
	if got := render("%o", 8); got != "10" {
		t.Errorf("got %q, want %q", got, "10")
	}
}

func TestPrintfPercentLiteral(t *testing.T) {
	if got := render("100%%"); got != "100%" {
		t.Errorf("got %q, want %q", got, "100%")
	}
}

func TestPrintfFieldWidthAndZeroPad(t *testing.T) {
	if got := render("%05d", 42); got != "00042" {
		t.Errorf("got %q, want %q", got, "00042")
	}
}

func TestPrintfLeftAdjust(t *testing.T) {
	if got := render("%-5d|", 42); got != "42   |" {
		t.Errorf("got %q, want %q", got, "42   |")
	}
}

func TestPrintfPrecisionOverridesZeroPad(t *testing.T) {
	if got := render("%05.2d", 3); got != "   03" {
		t.Errorf("got %q, want %q", got, "   03")
	}
}

func TestPrintfVariableWidth(t *testing.T) {
	if got := render("%*d", 4, 7); got != "   7" {
		t.Errorf("got %q, want %q", got, "   7")
	}
}

func TestPrintfPointerNil(t *testing.T) {
	var p *int
	if got := render("%p", p); got != "0x0" {
		t.Errorf("got %q, want %q", got, "0x0")
	}
}

func TestPrintfUnknownSpecifierRewinds(t *testing.T) {
	// "%q" is not a recognized verb: the implementation emits a literal
	// '%' and resumes scanning at 'q', which is then copied through
	// unchanged as an ordinary character.
	if got := render("%qfoo"); got != "%qfoo" {
		t.Errorf("got %q, want %q", got, "%qfoo")
	}
}

func TestPrintfLengthModifiersIgnored(t *testing.T) {
	if got := render("%lld", int64(9)); got != "9" {
		t.Errorf("got %q, want %q", got, "9")
	}
}

func TestPrintfTrailingPercent(t *testing.T) {
	if got := render("abc%"); got != "abc%" {
		t.Errorf("got %q, want %q", got, "abc%")
	}
}

func TestPrintfResetClearsFirst(t *testing.T) {
	b := New(16)
	b.WriteString("stale")
	b.PrintfReset("%d", 1)
	if got := b.String(); got != "1" {
		t.Errorf("got %q, want %q", got, "1")
	}
}
