package rates

// Reset drops the cached snapshot and refresh history.
func (c *Cache) Reset() {
	c.refresh.Lock()
	defer c.refresh.Unlock()

	c.current.Store(nil)
	c.lastErr = nil
}
