// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package macro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdv-oss/idlc/internal/idl/ierrors"
)

func TestObjectLikeMacroExpansion(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "ANSWER", Body: []string{"42"}}))

	out, err := ExpandAll(s, UsedSet{}, []string{"long", "x", "=", "ANSWER", ";"})
	require.NoError(t, err)
	assert.Equal(t, []string{"long", "x", "=", "42", ";"}, out)
}

func TestFunctionLikeMacroExpansion(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "ADD", FunctionLike: true, Params: []string{"a", "b"},
		Body: []string{"(", "a", "+", "b", ")"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"ADD", "(", "1", ",", "2", ")", ";"})
	require.NoError(t, err)
	assert.Equal(t, []string{"(", "1", "+", "2", ")", ";"}, out)
}

func TestFunctionLikeMacroArityMismatch(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "ADD", FunctionLike: true, Params: []string{"a", "b"},
		Body: []string{"a", "+", "b"},
	}))

	_, err := ExpandAll(s, UsedSet{}, []string{"ADD", "(", "1", ")"})
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ierrors.KindMacroArity))
}

func TestStringifyOperator(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "STR", FunctionLike: true, Params: []string{"x"},
		Body: []string{"#", "x"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"STR", "(", "hello", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{`"hello"`}, out)
}

func TestTokenPasteOperator(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "CAT", FunctionLike: true, Params: []string{"a", "b"},
		Body: []string{"a", "##", "b"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"CAT", "(", "foo", ",", "bar", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{"foobar"}, out)
}

// TestCircularExpansionIsSuppressed exercises the front end's guard
// against a macro that (directly or through another macro) expands to
// itself: the self-reference must be left as a bare identifier rather
// than looping forever.
func TestCircularExpansionIsSuppressed(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "A", Body: []string{"B"}}))
	require.NoError(t, s.Define(Definition{Name: "B", Body: []string{"A"}}))

	out, err := ExpandAll(s, UsedSet{}, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, out)
}

func TestRedefinitionWithSameShapeIsNoop(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "X", Body: []string{"1"}}))
	assert.NoError(t, s.Define(Definition{Name: "X", Body: []string{"1"}}))
}

func TestRedefinitionWithDifferentShapeIsError(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "X", Body: []string{"1"}}))
	err := s.Define(Definition{Name: "X", Body: []string{"2"}})
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ierrors.KindRedefinition))
}

func TestUndefThenRedefineIsAllowed(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "X", Body: []string{"1"}}))
	s.Undef("X")
	assert.False(t, s.Defined("X"))
	require.NoError(t, s.Define(Definition{Name: "X", Body: []string{"2"}}))
}

func TestVariadicMacro(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "LOG", FunctionLike: true, Variadic: true,
		Params: []string{"fmt", "..."},
		Body:   []string{"fmt", ",", "__VA_ARGS__"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"LOG", "(", `"x"`, ",", "1", ",", "2", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{`"x"`, ",", "1", ",", "2"}, out)
}

func TestObjectLikeMacroWithNoBodyIsDefinedWithEmptyText(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "TEST"}))

	assert.True(t, s.Defined("TEST"))
	def, ok := s.Get("TEST")
	require.True(t, ok)
	assert.Empty(t, strings.Join(def.Body, ""))
}

// TestNestedStringifyRescansArgumentExpansion exercises a macro whose
// argument is itself expanded before being passed into an inner
// stringifying macro, rather than stringified as written.
func TestNestedStringifyRescansArgumentExpansion(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{Name: "Fx", Body: []string{"abc"}}))
	require.NoError(t, s.Define(Definition{Name: "Bx", Body: []string{"def"}}))
	require.NoError(t, s.Define(Definition{
		Name: "FB", FunctionLike: true, Params: []string{"arg"},
		Body: []string{"#", "arg"},
	}))
	require.NoError(t, s.Define(Definition{
		Name: "FB1", FunctionLike: true, Params: []string{"arg"},
		Body: []string{"FB", "(", "arg", ")"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"FB1", "(", "Fx", "Bx", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{`"abc def"`}, out)
}

func TestFunctionLikeMacroRedefinedWithSameShapeExpandsNormally(t *testing.T) {
	s := NewStore()
	def := Definition{
		Name: "A", FunctionLike: true, Params: []string{"a", "b"},
		Body: []string{"a", "*", "b"},
	}
	require.NoError(t, s.Define(def))
	require.NoError(t, s.Define(def))

	out, err := ExpandAll(s, UsedSet{}, []string{"A", "(", "3", ",", "4", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "*", "4"}, out)

	err = s.Define(Definition{Name: "A", FunctionLike: true, Params: []string{"a"}, Body: []string{"a"}})
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ierrors.KindRedefinition))
}

func TestFunctionLikeSelfReferenceDoesNotExpandRecursively(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Define(Definition{
		Name: "F", FunctionLike: true, Params: []string{"x"},
		Body: []string{"F", "(", "x", ")"},
	}))

	out, err := ExpandAll(s, UsedSet{}, []string{"F", "(", "1", ")"})
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "(", "1", ")"}, out)
}

func TestUsedSetCloneIsIndependent(t *testing.T) {
	base := UsedSet{"A": {}}
	clone := base.With("B")
	assert.True(t, clone.Contains("A"))
	assert.True(t, clone.Contains("B"))
	assert.False(t, base.Contains("B"))
}
