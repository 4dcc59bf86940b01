package twi

// Bus states reported in the status register, already masked with StatusMask.
const (
	StatusStart           byte = 0x08
	StatusRepeatedStart   byte = 0x10
	StatusAddrWriteAck    byte = 0x18
	StatusAddrWriteNack   byte = 0x20
	StatusDataSentAck     byte = 0x28
	StatusDataSentNack    byte = 0x30
	StatusArbitrationLost byte = 0x38
	StatusAddrReadAck     byte = 0x40
	StatusAddrReadNack    byte = 0x48
	StatusDataRecvAck     byte = 0x50
	StatusDataRecvNack    byte = 0x58

	// StatusMask strips the prescaler bits from the status register.
	StatusMask byte = 0xf8
)

// Control register bits.
const (
	ControlInt       byte = 0x80 // TWINT, writing 1 clears the flag
	ControlAck       byte = 0x40 // TWEA
	ControlStart     byte = 0x20 // TWSTA
	ControlStop      byte = 0x10 // TWSTO, cleared by hardware once STOP is on the bus
	ControlCollision byte = 0x08 // TWWC
	ControlEnable    byte = 0x04 // TWEN
	ControlIntEnable byte = 0x01 // TWIE

	// controlResume re-arms the peripheral at the end of every interrupt.
	controlResume = ControlInt | ControlEnable | ControlIntEnable
)

// MaxAddress is the highest 7-bit target address.
const MaxAddress byte = 0x7f

// Peripheral is the register-level view of a TWI controller.
// The platform must call Engine.HandleInterrupt once for every
// bus event while the interrupt is enabled.
type Peripheral interface {
	// Status reads the status register including prescaler bits.
	Status() byte
	// Data reads the data register.
	Data() byte
	// SetData writes the data register.
	SetData(byte)
	// Control reads the control register.
	Control() byte
	// SetControl writes the control register.
	SetControl(byte)
	// SetBitRate programs the bit rate divisor and prescaler select bits.
	SetBitRate(divisor, prescaler byte)
	// SetOwnAddress programs the slave address register.
	SetOwnAddress(byte)
}

// StatusName returns a short description of a masked status code.
func StatusName(status byte) string {
	switch status {
	case StatusStart:
		return "START"
	case StatusRepeatedStart:
		return "repeated START"
	case StatusAddrWriteAck:
		return "SLA+W ACK"
	case StatusAddrWriteNack:
		return "SLA+W NACK"
	case StatusDataSentAck:
		return "data sent ACK"
	case StatusDataSentNack:
		return "data sent NACK"
	case StatusArbitrationLost:
		return "arbitration lost"
	case StatusAddrReadAck:
		return "SLA+R ACK"
	case StatusAddrReadNack:
		return "SLA+R NACK"
	case StatusDataRecvAck:
		return "data received ACK"
	case StatusDataRecvNack:
		return "data received NACK"
	}
	return "unknown"
}
