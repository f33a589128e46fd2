// Copyright 2025 CardinalHQ, Inc
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

// Package bitstream turns a 64-bit generator into a stream of single
// unbiased bits, drawing one word for every 64 bits handed out.
package bitstream

// Source is a 64-bit pseudo-random generator. *rand.PCG and
// *rand.ChaCha8 from math/rand/v2 both satisfy it.
type Source interface {
	Uint64() uint64
}

const wordBits = 64

// BitStream caches one generator word and hands it out a bit at a time,
// least significant bit first. A BitStream is not safe for concurrent
// use; each worker owns its own.
type BitStream struct {
	src    Source
	word   uint64
	cursor uint
	draws  uint64
}

func New(src Source) *BitStream {
	return &BitStream{
		src:    src,
		cursor: wordBits,
	}
}

// NextBit returns the next bit of the stream.
func (b *BitStream) NextBit() bool {
	if b.cursor == wordBits {
		b.word = b.src.Uint64()
		b.cursor = 0
		b.draws++
	}
	bit := (b.word>>b.cursor)&1 == 1
	b.cursor++
	return bit
}

// Draws reports how many words have been taken from the source.
func (b *BitStream) Draws() uint64 {
	return b.draws
}
