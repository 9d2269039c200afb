package spc700

// initMov wires every load/store addressing-mode variant. Loads into a
// register set N/Z from the loaded value (the documented SPC700
// behavior); stores to memory never touch flags. MOV X,SP and MOV SP,X
// are the one documented register-to-register exception that also
// leaves flags untouched.
func (c *CPU) initMov() {
	loadA := func(v byte) { c.A = v; c.setNZ8(v) }
	loadX := func(v byte) { c.X = v; c.setNZ8(v) }
	loadY := func(v byte) { c.Y = v; c.setNZ8(v) }

	// MOV A, <src>
	c.ops[0xE4] = func(c *CPU) { d := c.fetch8(); loadA(c.bus.Read(c.addrDP(d))); c.cost(3) }
	c.ops[0xE5] = func(c *CPU) { a := c.fetch16(); loadA(c.bus.Read(a)); c.cost(4) }
	c.ops[0xE6] = func(c *CPU) { loadA(c.bus.Read(c.addrX())); c.cost(3) }
	c.ops[0xE7] = func(c *CPU) { d := c.fetch8(); loadA(c.bus.Read(c.addrIndexedIndirect(d))); c.cost(6) }
	c.ops[0xE8] = func(c *CPU) { loadA(c.fetch8()); c.cost(2) }
	c.ops[0xF4] = func(c *CPU) { d := c.fetch8(); loadA(c.bus.Read(c.addrDPX(d))); c.cost(4) }
	c.ops[0xF5] = func(c *CPU) { a := c.fetch16(); loadA(c.bus.Read(a + uint16(c.X))); c.cost(5) }
	c.ops[0xF6] = func(c *CPU) { a := c.fetch16(); loadA(c.bus.Read(a + uint16(c.Y))); c.cost(5) }
	c.ops[0xF7] = func(c *CPU) { d := c.fetch8(); loadA(c.bus.Read(c.addrIndirectIndexed(d))); c.cost(6) }
	c.ops[0x7D] = func(c *CPU) { loadA(c.X); c.cost(2) }
	c.ops[0xDD] = func(c *CPU) { loadA(c.Y); c.cost(2) }
	c.ops[0xBF] = func(c *CPU) { // MOV A, (X)+
		addr := c.addrX()
		loadA(c.bus.Read(addr))
		c.X++
		c.cost(4)
	}

	// MOV X, <src>
	c.ops[0xCD] = func(c *CPU) { loadX(c.fetch8()); c.cost(2) }
	c.ops[0xF8] = func(c *CPU) { d := c.fetch8(); loadX(c.bus.Read(c.addrDP(d))); c.cost(3) }
	c.ops[0xE9] = func(c *CPU) { a := c.fetch16(); loadX(c.bus.Read(a)); c.cost(4) }
	c.ops[0xF9] = func(c *CPU) { d := c.fetch8(); loadX(c.bus.Read(c.addrDPY(d))); c.cost(4) }
	c.ops[0x5D] = func(c *CPU) { loadX(c.A); c.cost(2) }
	c.ops[0x9D] = func(c *CPU) { c.X = c.SP; c.cost(2) } // no flags

	// MOV Y, <src>
	c.ops[0x8D] = func(c *CPU) { loadY(c.fetch8()); c.cost(2) }
	c.ops[0xEB] = func(c *CPU) { d := c.fetch8(); loadY(c.bus.Read(c.addrDP(d))); c.cost(3) }
	c.ops[0xEC] = func(c *CPU) { a := c.fetch16(); loadY(c.bus.Read(a)); c.cost(4) }
	c.ops[0xFB] = func(c *CPU) { d := c.fetch8(); loadY(c.bus.Read(c.addrDPX(d))); c.cost(4) }
	c.ops[0xFD] = func(c *CPU) { loadY(c.A); c.cost(2) }

	c.ops[0xBD] = func(c *CPU) { c.SP = c.X; c.cost(2) } // MOV SP, X; no flags

	// Stores: MOV <dst>, A
	c.ops[0xC4] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDP(d), c.A); c.cost(4) }
	c.ops[0xC5] = func(c *CPU) { a := c.fetch16(); c.bus.Write(a, c.A); c.cost(5) }
	c.ops[0xC6] = func(c *CPU) { c.bus.Write(c.addrX(), c.A); c.cost(4) }
	c.ops[0xC7] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrIndexedIndirect(d), c.A); c.cost(7) }
	c.ops[0xD4] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDPX(d), c.A); c.cost(5) }
	c.ops[0xD5] = func(c *CPU) { a := c.fetch16(); c.bus.Write(a+uint16(c.X), c.A); c.cost(6) }
	c.ops[0xD6] = func(c *CPU) { a := c.fetch16(); c.bus.Write(a+uint16(c.Y), c.A); c.cost(6) }
	c.ops[0xD7] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrIndirectIndexed(d), c.A); c.cost(7) }
	c.ops[0xAF] = func(c *CPU) { // MOV (X)+, A
		c.bus.Write(c.addrX(), c.A)
		c.X++
		c.cost(4)
	}

	// Stores: MOV <dst>, X / Y
	c.ops[0xD8] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDP(d), c.X); c.cost(4) }
	c.ops[0xC9] = func(c *CPU) { a := c.fetch16(); c.bus.Write(a, c.X); c.cost(5) }
	c.ops[0xD9] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDPY(d), c.X); c.cost(5) }
	c.ops[0xCB] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDP(d), c.Y); c.cost(4) }
	c.ops[0xCC] = func(c *CPU) { a := c.fetch16(); c.bus.Write(a, c.Y); c.cost(5) }
	c.ops[0xDB] = func(c *CPU) { d := c.fetch8(); c.bus.Write(c.addrDPX(d), c.Y); c.cost(5) }

	c.ops[0xFA] = func(c *CPU) { // MOV dd, ds
		dst := c.fetch8()
		src := c.fetch8()
		v := c.bus.Read(c.addrDP(src))
		c.bus.Write(c.addrDP(dst), v)
		c.cost(5)
	}
	c.ops[0x8F] = func(c *CPU) { // MOV dp, #imm (immediate byte precedes the address byte)
		imm := c.fetch8()
		d := c.fetch8()
		c.bus.Write(c.addrDP(d), imm)
		c.cost(5)
	}
}

func (c *CPU) initRegisterCompares() {
	c.ops[0xC8] = func(c *CPU) { c.cmp(c.X, c.fetch8()); c.cost(2) }
	c.ops[0x3E] = func(c *CPU) { d := c.fetch8(); c.cmp(c.X, c.bus.Read(c.addrDP(d))); c.cost(3) }
	c.ops[0x1E] = func(c *CPU) { a := c.fetch16(); c.cmp(c.X, c.bus.Read(a)); c.cost(4) }
	c.ops[0xAD] = func(c *CPU) { c.cmp(c.Y, c.fetch8()); c.cost(2) }
	c.ops[0x7E] = func(c *CPU) { d := c.fetch8(); c.cmp(c.Y, c.bus.Read(c.addrDP(d))); c.cost(3) }
	c.ops[0x5E] = func(c *CPU) { a := c.fetch16(); c.cmp(c.Y, c.bus.Read(a)); c.cost(4) }
}

func (c *CPU) initWordOps() {
	c.ops[0xBA] = func(c *CPU) { // MOVW YA, d
		d := c.fetch8()
		v := c.read16(c.addrDP(d))
		c.setYA(v)
		c.setNZ16(v)
		c.cost(5)
	}
	c.ops[0xDA] = func(c *CPU) { // MOVW d, YA (store, no flags)
		d := c.fetch8()
		c.write16(c.addrDP(d), c.YA())
		c.cost(5)
	}
	c.ops[0x3A] = func(c *CPU) { // INCW d
		d := c.fetch8()
		addr := c.addrDP(d)
		v := c.read16(addr) + 1
		c.write16(addr, v)
		c.setNZ16(v)
		c.cost(6)
	}
	c.ops[0x1A] = func(c *CPU) { // DECW d
		d := c.fetch8()
		addr := c.addrDP(d)
		v := c.read16(addr) - 1
		c.write16(addr, v)
		c.setNZ16(v)
		c.cost(6)
	}
	c.ops[0x7A] = func(c *CPU) { // ADDW YA, d
		d := c.fetch8()
		v := c.read16(c.addrDP(d))
		c.setYA(c.addw(c.YA(), v))
		c.cost(5)
	}
	c.ops[0x9A] = func(c *CPU) { // SUBW YA, d
		d := c.fetch8()
		v := c.read16(c.addrDP(d))
		c.setYA(c.subw(c.YA(), v))
		c.cost(5)
	}
	c.ops[0x5A] = func(c *CPU) { // CMPW YA, d
		d := c.fetch8()
		v := c.read16(c.addrDP(d))
		diff := int32(c.YA()) - int32(v)
		c.setFlag(FlagC, diff >= 0)
		c.setNZ16(uint16(diff))
		c.cost(4)
	}
}
