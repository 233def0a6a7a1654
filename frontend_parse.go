package gm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseMiniSource compiles a tiny expression/statement subset into a
// Library: global assignment, return, and top-level function
// declarations with integer/float arithmetic and calls. It exists only
// to give the compile/extract CLIs and this package's own tests
// something that turns source text into bytecode end-to-end — it is not
// a GameMonkey-syntax frontend (no control flow, tables, or strings
// beyond what a caller builds directly with FuncBuilder).
//
// Supported grammar:
//
//	program    := stmt*
//	stmt       := "global" IDENT "=" expr ";"
//	            | "return" expr ";"
//	            | "function" IDENT "(" params ")" "{" stmt* "}"
//	expr       := term (("+"|"-") term)*
//	term       := factor (("*"|"/") factor)*
//	factor     := NUMBER | IDENT | IDENT "(" args ")" | "(" expr ")"
func ParseMiniSource(src string) (Library, error) {
	p := &miniParser{toks: lexMini(src), u: NewCompileUnit()}
	main := p.u.NewFunction("main", 0, 8, true)
	p.main = main
	p.locals = map[string]int32{}
	for !p.atEnd() {
		if p.peek() == "function" {
			if err := p.parseFunctionDecl(); err != nil {
				return Library{}, err
			}
			continue
		}
		if err := p.parseStmt(main); err != nil {
			return Library{}, err
		}
	}
	main.PushNull()
	main.Return()
	fns := append([]*FuncBuilder{main}, p.fns...)
	return BuildLibrary(p.u, fns, true, src), nil
}

type miniParser struct {
	toks   []string
	pos    int
	u      *CompileUnit
	main   *FuncBuilder
	fns    []*FuncBuilder
	locals map[string]int32 // current function's name→slot, reset per function
}

func (p *miniParser) atEnd() bool  { return p.pos >= len(p.toks) }
func (p *miniParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}
func (p *miniParser) next() string {
	t := p.peek()
	p.pos++
	return t
}
func (p *miniParser) expect(tok string) error {
	if p.peek() != tok {
		return fmt.Errorf("%w: expected %q, got %q", ErrCompile, tok, p.peek())
	}
	p.pos++
	return nil
}

func (p *miniParser) parseFunctionDecl() error {
	p.next() // "function"
	name := p.next()
	if err := p.expect("("); err != nil {
		return err
	}
	var params []string
	for p.peek() != ")" {
		params = append(params, p.next())
		if p.peek() == "," {
			p.next()
		}
	}
	p.next() // ")"
	if err := p.expect("{"); err != nil {
		return err
	}
	fb := p.u.NewFunction(name, int32(len(params)), 8, false)
	savedLocals := p.locals
	p.locals = map[string]int32{}
	for i, name := range params {
		p.locals[name] = int32(i)
	}
	for p.peek() != "}" {
		if err := p.parseStmt(fb); err != nil {
			return err
		}
	}
	p.next() // "}"
	p.locals = savedLocals
	p.fns = append(p.fns, fb)
	// Bind the function as a global under its declared name so calls by
	// name (Machine.BeginCallGlobal) resolve it, in main's own bytecode
	// stream at the point the declaration was encountered.
	p.main.PushFn(fb)
	p.main.SetGlobal(name)
	return nil
}

func (p *miniParser) parseStmt(fb *FuncBuilder) error {
	switch p.peek() {
	case "global":
		p.next()
		name := p.next()
		if err := p.expect("="); err != nil {
			return err
		}
		if err := p.parseExpr(fb); err != nil {
			return err
		}
		if err := p.expect(";"); err != nil {
			return err
		}
		fb.SetGlobal(name)
		return nil
	case "return":
		p.next()
		if err := p.parseExpr(fb); err != nil {
			return err
		}
		if err := p.expect(";"); err != nil {
			return err
		}
		fb.Return()
		return nil
	default:
		if err := p.parseExpr(fb); err != nil {
			return err
		}
		return p.expect(";")
	}
}

func (p *miniParser) parseExpr(fb *FuncBuilder) error {
	if err := p.parseTerm(fb); err != nil {
		return err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.next()
		if err := p.parseTerm(fb); err != nil {
			return err
		}
		if op == "+" {
			fb.Add()
		} else {
			fb.Sub()
		}
	}
	return nil
}

func (p *miniParser) parseTerm(fb *FuncBuilder) error {
	if err := p.parseFactor(fb); err != nil {
		return err
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.next()
		if err := p.parseFactor(fb); err != nil {
			return err
		}
		if op == "*" {
			fb.Mul()
		} else {
			fb.Div()
		}
	}
	return nil
}

func (p *miniParser) parseFactor(fb *FuncBuilder) error {
	tok := p.next()
	if tok == "(" {
		if err := p.parseExpr(fb); err != nil {
			return err
		}
		return p.expect(")")
	}
	if n, err := strconv.ParseInt(tok, 10, 32); err == nil {
		fb.PushInt(int32(n))
		return nil
	}
	if f, err := strconv.ParseFloat(tok, 32); err == nil {
		fb.PushFloat(float32(f))
		return nil
	}
	if tok == "" {
		return fmt.Errorf("%w: unexpected end of input", ErrCompile)
	}
	// Identifier: a call, a local, or a global read.
	if p.peek() == "(" {
		p.next()
		n := int32(0)
		for p.peek() != ")" {
			if err := p.parseExpr(fb); err != nil {
				return err
			}
			n++
			if p.peek() == "," {
				p.next()
			}
		}
		p.next()
		fb.GetGlobal(tok)
		fb.Call(n)
		return nil
	}
	if slot, ok := p.locals[tok]; ok {
		fb.GetLocal(slot)
		return nil
	}
	fb.GetGlobal(tok)
	return nil
}

// lexMini tokenizes src into a flat stream of punctuation, identifiers,
// keywords, and numeric literals, skipping whitespace and dropping any
// other character. It has no comment syntax.
func lexMini(src string) []string {
	var toks []string
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case strings.ContainsRune("+-*/=;(){},", c):
			toks = append(toks, string(c))
			i++
		case unicode.IsDigit(c):
			j := i
			for j < len(src) && (unicode.IsDigit(rune(src[j])) || src[j] == '.') {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j])) || src[j] == '_') {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		default:
			i++
		}
	}
	return toks
}
